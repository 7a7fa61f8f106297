package main

import (
	"Bt1QSocial/cmd"
)

func main() {
	cmd.Execute()
}
