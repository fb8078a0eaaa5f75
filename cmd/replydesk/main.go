package main

import (
	// Business timezones must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"
)

func main() {
	CustomizeHelp(rootCmd)
	Execute()
}
