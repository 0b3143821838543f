//go:build !linux

package sysres

func residentBytes() (uint64, error) { return 0, ErrUnsupported }

func totalMemory() (uint64, error) { return 0, ErrUnsupported }

func setNice(int) error { return ErrUnsupported }
