// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-dkg.
//
// go-dkg is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package rest exposes key generation sessions over HTTP.
//
// # Server Setup
//
//	manager, _ := session.NewManager(&session.Config{Generator: gen})
//	server, _ := rest.NewServer(&rest.Config{
//	    Manager: manager,
//	    Port:    8080,
//	    Version: "1.0.0",
//	})
//	go server.Start()
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//	server.Stop(ctx)
//
// # API Endpoints
//
//   - GET    /health                             server health
//   - GET    /metrics                            Prometheus metrics
//   - POST   /api/v1/sessions                    create a session and distribute shares
//   - GET    /api/v1/sessions                    list sessions
//   - GET    /api/v1/sessions/{id}               session snapshot
//   - POST   /api/v1/sessions/{id}/removals      remove a participant, or finish with "done"
//   - POST   /api/v1/sessions/{id}/finalize      finalize the session
//   - POST   /api/v1/sessions/{id}/escrow        escrow the joint secret among survivors
//   - GET    /api/v1/sessions/{id}/events        audit trail, kept after deletion
//   - DELETE /api/v1/sessions/{id}               forget a session
//
// Errors are returned as ErrorResponse JSON. Every response carries an
// X-Correlation-ID header.
package rest
