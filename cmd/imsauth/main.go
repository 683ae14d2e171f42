// Command imsauth es el servidor OAuth2/JWT y sus tareas de mantenimiento.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// version se sobreescribe con -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env es opcional: en producción todo viene del entorno
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("no se pudo leer .env: %v", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
