// Package auth verifies bearer tokens issued by the platform's auth service
// and maps their roles to capture-core permissions.
//
// The core never stores users or issues long-lived credentials. Tokens are
// HS256 JWTs signed with the shared secret from security.jwt.secret and must
// carry a subject and a known role.
//
// Role model (static, compile-time):
//
//	viewer    camera and schedule status, execution log
//	operator  viewer + manual camera start/stop
//	admin     operator + manual scheduler ticks
//	service   same as admin, for platform service accounts
package auth
