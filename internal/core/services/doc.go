// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no CGO. Apart from google/uuid for
// generation ids they depend only on the domain and the ports.
package services
