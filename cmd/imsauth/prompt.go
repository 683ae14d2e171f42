package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// stdinIsTerminal indica si se puede pedir el password de forma interactiva.
var stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

// promptPassword pide el password sin eco y lo confirma.
func promptPassword(out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())

	fmt.Fprint(out, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	if len(first) == 0 {
		return "", errors.New("el password no puede estar vacío")
	}

	fmt.Fprint(out, "Confirmar password: ")
	confirm, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	if string(first) != string(confirm) {
		return "", errors.New("los passwords no coinciden")
	}
	return string(first), nil
}
