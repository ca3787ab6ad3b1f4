package seed

import (
	"context"
	"strings"

	"martforge/pkg/errors"
)

// Executor is the slice of the warehouse service the loader needs.
type Executor interface {
	ExecuteSQL(ctx context.Context, sqlText string) error
	Exec(ctx context.Context, query string, args ...interface{}) error
}

// rawDDL recreates the four source tables. Types are kept to the
// portable core the three adapters all accept.
const rawDDL = `
DROP TABLE IF EXISTS raw_users;
CREATE TABLE raw_users (
    user_id VARCHAR(36),
    age INTEGER,
    age_group VARCHAR(16),
    region VARCHAR(16),
    device_type VARCHAR(16),
    signup_date TIMESTAMP
);
DROP TABLE IF EXISTS raw_products;
CREATE TABLE raw_products (
    product_id VARCHAR(36),
    category VARCHAR(32),
    brand VARCHAR(32),
    base_price DECIMAL(12,2),
    current_price DECIMAL(12,2)
);
DROP TABLE IF EXISTS raw_events;
CREATE TABLE raw_events (
    event_id VARCHAR(36),
    user_id VARCHAR(36),
    product_id VARCHAR(36),
    event_type VARCHAR(32),
    event_timestamp TIMESTAMP,
    traffic_source VARCHAR(32)
);
DROP TABLE IF EXISTS raw_sales;
CREATE TABLE raw_sales (
    sale_id VARCHAR(36),
    user_id VARCHAR(36),
    product_id VARCHAR(36),
    sale_timestamp TIMESTAMP,
    quantity INTEGER,
    unit_price DECIMAL(12,2),
    total_amount DECIMAL(12,2),
    discount DECIMAL(12,2),
    net_amount DECIMAL(12,2),
    payment_method VARCHAR(32),
    order_status VARCHAR(16)
);`

// truncateDDL clears the raw tables without touching their schema.
const truncateDDL = `
DELETE FROM raw_users;
DELETE FROM raw_products;
DELETE FROM raw_events;
DELETE FROM raw_sales;`

// Load recreates the raw tables and inserts the dataset in batches of
// batchSize rows per statement.
func Load(ctx context.Context, exec Executor, ds *Dataset, batchSize int) error {
	return load(ctx, exec, ds, batchSize, rawDDL)
}

// LoadTruncate clears existing raw tables and reloads them, keeping
// the table definitions in place.
func LoadTruncate(ctx context.Context, exec Executor, ds *Dataset, batchSize int) error {
	return load(ctx, exec, ds, batchSize, truncateDDL)
}

func load(ctx context.Context, exec Executor, ds *Dataset, batchSize int, ddl string) error {
	if batchSize <= 0 {
		batchSize = 500
	}

	if err := exec.ExecuteSQL(ctx, ddl); err != nil {
		return errors.Wrap(err, errors.ErrCodeSeedLoad, "Failed to prepare raw tables")
	}

	users := make([][]interface{}, len(ds.Users))
	for i, u := range ds.Users {
		users[i] = []interface{}{u.ID, u.Age, u.AgeGroup, u.Region, u.DeviceType, u.SignupDate}
	}
	if err := insertBatches(ctx, exec, "raw_users", 6, users, batchSize); err != nil {
		return err
	}

	products := make([][]interface{}, len(ds.Products))
	for i, p := range ds.Products {
		products[i] = []interface{}{p.ID, p.Category, p.Brand, p.BasePrice, p.CurrentPrice}
	}
	if err := insertBatches(ctx, exec, "raw_products", 5, products, batchSize); err != nil {
		return err
	}

	events := make([][]interface{}, len(ds.Events))
	for i, e := range ds.Events {
		var productID interface{}
		if e.ProductID != "" {
			productID = e.ProductID
		}
		events[i] = []interface{}{e.ID, e.UserID, productID, string(e.Type), e.Timestamp, e.TrafficSource}
	}
	if err := insertBatches(ctx, exec, "raw_events", 6, events, batchSize); err != nil {
		return err
	}

	sales := make([][]interface{}, len(ds.Sales))
	for i, s := range ds.Sales {
		sales[i] = []interface{}{
			s.ID, s.UserID, s.ProductID, s.Timestamp, s.Quantity,
			s.UnitPrice, s.Total, s.Discount, s.NetAmount, s.PaymentMethod, s.Status,
		}
	}
	return insertBatches(ctx, exec, "raw_sales", 11, sales, batchSize)
}

func insertBatches(ctx context.Context, exec Executor, table string, cols int, rows [][]interface{}, batchSize int) error {
	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", cols), ", ") + ")"

	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		placeholders := make([]string, len(batch))
		args := make([]interface{}, 0, len(batch)*cols)
		for i, row := range batch {
			placeholders[i] = rowPlaceholder
			args = append(args, row...)
		}

		query := "INSERT INTO " + table + " VALUES " + strings.Join(placeholders, ", ")
		if err := exec.Exec(ctx, query, args...); err != nil {
			return errors.Wrap(err, errors.ErrCodeSeedLoad,
				"Failed to insert batch into "+table)
		}
	}
	return nil
}
