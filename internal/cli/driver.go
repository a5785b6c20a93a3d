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

package cli

import (
	"context"
	"errors"

	"github.com/jeremyhahn/go-dkg/internal/session"
	"github.com/jeremyhahn/go-dkg/pkg/client"
	"github.com/jeremyhahn/go-dkg/pkg/dkg"
	"github.com/jeremyhahn/go-dkg/pkg/threshold/shamir"
)

var errNotStarted = errors.New("session not started")

// Driver runs a single session, either in process or on a dkg-server.
type Driver interface {
	// Start creates the session and distributes shares.
	Start(ctx context.Context, req *session.CreateRequest) (id string, snap *dkg.Snapshot, err error)

	// Submit feeds one line of removal input.
	Submit(ctx context.Context, input string) (*dkg.Outcome, error)

	// Escrow splits the finalized joint secret among the survivors.
	Escrow(ctx context.Context) (*shamir.Escrow, error)

	// Close releases the session.
	Close(ctx context.Context) error
}

type localDriver struct {
	manager *session.Manager
	id      string
}

func newLocalDriver(manager *session.Manager) *localDriver {
	return &localDriver{manager: manager}
}

func (d *localDriver) Start(ctx context.Context, req *session.CreateRequest) (string, *dkg.Snapshot, error) {
	info, err := d.manager.Create(ctx, req)
	if err != nil {
		return "", nil, err
	}
	d.id = info.ID
	return info.ID, info.Session, nil
}

func (d *localDriver) Submit(ctx context.Context, input string) (*dkg.Outcome, error) {
	if d.id == "" {
		return nil, errNotStarted
	}
	return d.manager.Submit(ctx, d.id, input)
}

func (d *localDriver) Escrow(ctx context.Context) (*shamir.Escrow, error) {
	if d.id == "" {
		return nil, errNotStarted
	}
	return d.manager.Escrow(ctx, d.id)
}

func (d *localDriver) Close(ctx context.Context) error {
	if d.id == "" {
		return nil
	}
	return d.manager.Delete(ctx, d.id)
}

type remoteDriver struct {
	client *client.Client
	id     string
}

func newRemoteDriver(c *client.Client) *remoteDriver {
	return &remoteDriver{client: c}
}

func (d *remoteDriver) Start(ctx context.Context, req *session.CreateRequest) (string, *dkg.Snapshot, error) {
	s, err := d.client.CreateSession(ctx, &client.CreateRequest{
		Threshold:        req.Threshold,
		Participants:     req.Participants,
		Polynomials:      req.Polynomials,
		EnforceThreshold: req.EnforceThreshold,
		Convention:       req.Convention,
	})
	if err != nil {
		return "", nil, err
	}
	d.id = s.ID
	return s.ID, s.Session, nil
}

func (d *remoteDriver) Submit(ctx context.Context, input string) (*dkg.Outcome, error) {
	if d.id == "" {
		return nil, errNotStarted
	}
	return d.client.Submit(ctx, d.id, input)
}

func (d *remoteDriver) Escrow(ctx context.Context) (*shamir.Escrow, error) {
	if d.id == "" {
		return nil, errNotStarted
	}
	return d.client.Escrow(ctx, d.id)
}

// Close deletes the server-side session and drops idle connections.
func (d *remoteDriver) Close(ctx context.Context) error {
	var err error
	if d.id != "" {
		err = d.client.DeleteSession(ctx, d.id)
	}
	return errors.Join(err, d.client.Close())
}
