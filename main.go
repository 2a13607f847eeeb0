/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/YiyoMb/DWP-Backend-FinanceAdmin/cmd"

func main() {
	cmd.Execute()
}
