package main

import "pdflogger/host/cmd/rtc-host/cmd"

func main() {
	cmd.Execute()
}
