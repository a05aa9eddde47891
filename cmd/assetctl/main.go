package main

import "github.com/garyjia/asset-registry/internal/cli"

func main() {
	cli.Execute()
}
