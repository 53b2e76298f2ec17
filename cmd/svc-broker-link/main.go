package main

import (
	"github.com/architeacher/svc-broker-link/internal/runtime"
)

func main() {
	runtime.New().Run()
}
