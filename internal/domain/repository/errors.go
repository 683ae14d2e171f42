package repository

import "errors"

// Errores que devuelven todos los drivers del credential store.
var (
	// ErrNotFound: no existe el usuario (por id o username) o el rol.
	ErrNotFound = errors.New("credential store: not found")
	// ErrConflict: username o nombre de rol ya usado (sin distinguir mayúsculas).
	ErrConflict = errors.New("credential store: conflict")
	// ErrInvalidInput: username vacío, hash vacío o mutación inválida.
	ErrInvalidInput = errors.New("credential store: invalid input")
	// ErrNoDatabase: driver SQL sin DSN.
	ErrNoDatabase = errors.New("credential store: no database configured")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
