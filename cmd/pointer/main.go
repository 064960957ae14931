// Package main provides the CLI entrypoint for pointer.
package main

func main() {
	Execute()
}
