package main

import (
	cmd "github.com/kerbaras/mangareader/cmd/mangas"
)

func main() {
	cmd.Execute()
}
