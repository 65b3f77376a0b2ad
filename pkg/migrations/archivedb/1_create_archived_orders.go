package archivedb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"github.com/guardianswap/bridge-middleware/pkg/archive"
	mghelper "github.com/guardianswap/bridge-middleware/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating archived_orders table...")
		if err := mghelper.CreateSchema(ctx, db, &archive.OrderDao{}); err != nil {
			return err
		}
		// Create indexes
		return mghelper.CreateModelIndexes(ctx, db, &archive.OrderDao{}, "kind", "status", "created_at")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping archived_orders table...")
		return mghelper.DropTables(ctx, db, &archive.OrderDao{})
	})
}
