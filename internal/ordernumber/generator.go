// Package ordernumber issues human-readable order numbers of the form
// PREFIX + YYYYMMDD + a per-day sequence padded to at least three digits.
package ordernumber

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
)

const dayLayout = "20060102"

// Generator returns the next number for the calendar day containing now.
// Implementations that can take part in tx must, so a rolled-back order does
// not consume a number.
type Generator interface {
	Next(ctx context.Context, tx *gorm.DB, now time.Time) (string, error)
}

// Format renders an order number. Sequences above 999 keep growing.
func Format(prefix string, day string, seq int64) string {
	return fmt.Sprintf("%s%s%03d", prefix, day, seq)
}

// Day is the YYYYMMDD key for now in loc.
func Day(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(dayLayout)
}

const upsertSequence = `INSERT INTO order_sequences (day, value, updated_at) VALUES (?, 1, ?)
ON CONFLICT (day) DO UPDATE SET value = order_sequences.value + 1, updated_at = excluded.updated_at
RETURNING value`

// DBGenerator keeps one row per day in order_sequences and bumps it with a
// single upsert inside the caller's transaction. The row lock held until
// commit serializes concurrent checkouts on the same day.
type DBGenerator struct {
	prefix string
	loc    *time.Location
}

func NewDBGenerator(prefix string, loc *time.Location) *DBGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &DBGenerator{prefix: prefix, loc: loc}
}

func (g *DBGenerator) Next(ctx context.Context, tx *gorm.DB, now time.Time) (string, error) {
	if tx == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "order number requires a transaction")
	}
	day := Day(now, g.loc)
	var seq int64
	if err := tx.WithContext(ctx).Raw(upsertSequence, day, now.UTC()).Scan(&seq).Error; err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order sequence")
	}
	if seq <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "order sequence returned no value")
	}
	return Format(g.prefix, day, seq), nil
}

type counter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	CounterKey(name string) string
}

// RedisGenerator uses INCR on a per-day key. It cannot join the order
// transaction, so a rolled-back checkout leaves a gap in the day's sequence.
type RedisGenerator struct {
	counter counter
	prefix  string
	loc     *time.Location
	ttl     time.Duration
}

func NewRedisGenerator(c counter, prefix string, loc *time.Location) *RedisGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &RedisGenerator{counter: c, prefix: prefix, loc: loc, ttl: 48 * time.Hour}
}

func (g *RedisGenerator) Next(ctx context.Context, _ *gorm.DB, now time.Time) (string, error) {
	day := Day(now, g.loc)
	seq, err := g.counter.IncrWithTTL(ctx, g.counter.CounterKey("order_seq:"+day), g.ttl)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order sequence")
	}
	return Format(g.prefix, day, seq), nil
}
