// Package usersearch provides a small net/http handler that searches the
// user directory and returns JSON options for the linked-user picker of the
// admin sign-up form.
//
// The handler responds to GET and HEAD requests and supports query and limit
// parameters. Matches on the login, the display name and the e-mail are
// considered; prefix matches sort first.
package usersearch
