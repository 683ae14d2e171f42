// Package logger envuelve zap para imsauth.
//
// Hay un logger global (Init/L/Sync) que arma la CLI con las secciones app y
// log de la config, y un logger por request que el middleware de logging deja
// en el contexto con request_id, method y path. Las capas de abajo lo toman
// con From(ctx) y le suman layer/op:
//
//	log := logger.From(ctx).With(logger.Layer("oauth"), logger.Op("Engine.Exchange"))
//	log.Info("code exchanged", logger.ClientID(id), logger.State("exchanged"))
//
// Passwords, secrets y tokens no se loguean; a lo sumo jti, username o el
// valor enmascarado con util.MaskSecret.
package logger
