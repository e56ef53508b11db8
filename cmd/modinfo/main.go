// Command modinfo inspects and rewrites binary firmware modules.
package main

func main() {
	Execute()
}
