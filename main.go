package main

import "github.com/vibast-solutions/ms-go-payment-verification/cmd"

func main() {
	cmd.Execute()
}
