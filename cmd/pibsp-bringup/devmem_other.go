//go:build !linux

package main

import (
	"pibsp-go/errcode"
	"pibsp-go/mmio"
)

func openDevMem(string) (mmio.Space, func(), error) {
	return nil, nil, errcode.New(errcode.InvalidParams, "openDevMem", "/dev/mem is only supported on linux")
}
