package main

import "github.com/clinicadesk/clinica_backend/cmd"

func main() {
	cmd.Execute()
}
