package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"backoffice/internal/attachments"
	"backoffice/internal/audit"
	"backoffice/internal/catalog"
	intconfig "backoffice/internal/config"
	"backoffice/internal/listing"
)

// application holds what the commands share.
type application struct {
	Service listing.Service
	closers []func() error
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("close: %v", err)
		}
	}
}

func build(ctx context.Context, env intconfig.Env, createSchema bool) (*application, error) {
	app := &application{}
	conn, err := intconfig.ConnectDB(env)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func() error { intconfig.CloseDB(); return nil })

	if err := wire(ctx, app, conn, env, createSchema); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func wire(ctx context.Context, app *application, conn *sql.DB, env intconfig.Env, createSchema bool) error {
	if createSchema {
		created, err := catalog.EnsureSchema(ctx, conn, env.Dialect())
		if err != nil {
			return err
		}
		if len(created) > 0 {
			log.Printf("created tables: %s", strings.Join(created, ", "))
		}
	}

	store, err := newBlobStore(ctx, env)
	if err != nil {
		return err
	}
	sink, closeSink, err := newAuditSink(conn, env)
	if err != nil {
		return err
	}
	app.closers = append(app.closers, closeSink)

	reg, err := listing.NewRegistry(ctx, conn, env.Dialect(), store, catalog.Definitions()...)
	if err != nil {
		return err
	}
	app.Service = listing.Service{DB: conn, Registry: reg, Audit: sink}
	return nil
}

func newBlobStore(ctx context.Context, env intconfig.Env) (attachments.BlobStore, error) {
	switch env.StorageDriver {
	case "s3":
		return attachments.NewS3Store(ctx, env.S3Bucket, env.S3Prefix, env.S3Region, env.S3Endpoint)
	case "memory":
		return attachments.NewMemoryStore(), nil
	case "local", "":
		return attachments.LocalStore{Dir: env.UploadDir}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", env.StorageDriver)
	}
}

// newAuditSink always logs and persists; NATS is added when configured.
func newAuditSink(conn *sql.DB, env intconfig.Env) (audit.Sink, func() error, error) {
	sinks := audit.Multi{audit.LogSink{}, audit.DBSink{DB: conn}}
	if strings.TrimSpace(env.NATSURL) == "" {
		return sinks, func() error { return nil }, nil
	}
	ns, err := audit.NewNATSSink(env.NATSURL, env.AuditSubject)
	if err != nil {
		return nil, nil, err
	}
	return append(sinks, ns), ns.Close, nil
}
