//go:build linux

package main

import "pibsp-go/mmio"

func openDevMem(path string) (mmio.Space, func(), error) {
	dm, err := mmio.OpenDevMem(path)
	if err != nil {
		return nil, nil, err
	}
	return dm, func() { dm.Close() }, nil
}
