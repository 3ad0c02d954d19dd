package main

import "github.com/marshallshelly/patient-records/cmd/patients/commands"

func main() {
	commands.Execute()
}
