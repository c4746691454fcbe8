package main

import "aaronromeo.com/mailsift/internal/cli"

func main() {
	cli.Execute()
}
