// Package mailer provides goAccount.EmailDispatcher implementations.
//
// [SMTPDispatcher] renders a markdown template with goldmark and sends a
// multipart text/HTML message, upgrading with STARTTLS when the server offers
// it. [LogDispatcher] logs the code for local development.
package mailer
