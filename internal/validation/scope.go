// Package validation tiene los chequeos de formato que se aplican a la
// configuración de clientes OAuth al arrancar.
package validation

import "regexp"

// Un scope es un token en minúsculas de 1 a 64 caracteres: empieza y termina
// con [a-z0-9] y en el medio admite ":", "_", "." y "-". Se viaja separado por
// espacios en el parámetro scope, así que nunca lleva espacios ni ";".
//
//	válidos:   read, write, users:admin, a_b-c.d:scope2
//	inválidos: READ, "read write", :read, read:, ;x
var scopeNameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9:_.-]{0,62}[a-z0-9])?$`)

// ValidScopeName indica si name sirve como scope de un cliente.
func ValidScopeName(name string) bool {
	return scopeNameRe.MatchString(name)
}
