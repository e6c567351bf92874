//go:build !linux

package input

func listEvdevPaths() ([]string, error) {
	return nil, ErrUnsupportedPlatform
}

func openEvdev(path string) (Device, error) {
	return nil, ErrUnsupportedPlatform
}
