package utils

import (
	"errors"
	"strconv"
)

// CheckValidVersion parses a version number taken from a URL or message.
// Versions are counted from 1.
func CheckValidVersion(version string) (*int, error) {
	var versionNum, err = strconv.Atoi(version)
	if err != nil {
		return nil, err
	}
	if versionNum < 1 {
		return nil, errors.New("version is not a positive number")
	}
	return &versionNum, nil
}
