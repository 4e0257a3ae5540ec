//go:build ch592 && !rtcdebug

package main

func initDebug() {}
