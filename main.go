package main

import "github.com/Tiliavir/booking-ledger/cmd"

func main() {
	cmd.Execute()
}
