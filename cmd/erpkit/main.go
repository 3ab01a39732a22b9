// Package main is the entry point for erpkit.
package main

func main() {
	Execute()
}
