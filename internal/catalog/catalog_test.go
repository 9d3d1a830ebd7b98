package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
)

func seedProduct(t *testing.T, db *gorm.DB, name string, price string, stock int) models.Product {
	t.Helper()
	row := models.Product{ID: uuid.New(), Name: name, Price: decimal.RequireFromString(price), Stock: stock, IsActive: true}
	require.NoError(t, db.Create(&row).Error)
	return row
}

func TestGetProduct(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	cake := seedProduct(t, db, "Chocolate Cake", "25.99", 10)
	retired := seedProduct(t, db, "Seasonal Tart", "12.00", 4)
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", retired.ID).Update("is_active", false).Error)

	got, err := repo.GetProduct(ctx, cake.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Chocolate Cake", got.Name)
	require.True(t, got.Price.Equal(decimal.RequireFromString("25.99")))
	require.Equal(t, 10, got.Stock)

	missing, err := repo.GetProduct(ctx, uuid.New())
	require.NoError(t, err)
	require.Nil(t, missing)

	delisted, err := repo.GetProduct(ctx, retired.ID)
	require.NoError(t, err)
	require.Nil(t, delisted)
}

func TestDecrementStockIsGuarded(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	cake := seedProduct(t, db, "Chocolate Cake", "25.99", 3)

	require.NoError(t, repo.DecrementStock(ctx, db, cake.ID, 2))

	err := repo.DecrementStock(ctx, db, cake.ID, 2)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)

	require.True(t, pkgerrors.IsCode(repo.DecrementStock(ctx, db, cake.ID, 0), pkgerrors.CodeValidation))

	var row models.Product
	require.NoError(t, db.First(&row, "id = ?", cake.ID).Error)
	require.Equal(t, 1, row.Stock)
}

func TestDecrementStockRollsBackWithTransaction(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	a := seedProduct(t, db, "Croissant", "3.50", 5)
	b := seedProduct(t, db, "Baguette", "4.00", 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := repo.DecrementStock(ctx, tx, a.ID, 5); err != nil {
			return err
		}
		return repo.DecrementStock(ctx, tx, b.ID, 2)
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	var rowA models.Product
	require.NoError(t, db.First(&rowA, "id = ?", a.ID).Error)
	require.Equal(t, 5, rowA.Stock)
}

func TestConcurrentDecrementsNeverOversell(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	cake := seedProduct(t, db, "Chocolate Cake", "25.99", 5)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.DecrementStock(context.Background(), nil, cake.ID, 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 5, succeeded)
	var row models.Product
	require.NoError(t, db.First(&row, "id = ?", cake.ID).Error)
	require.Zero(t, row.Stock)
}

func TestRestock(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	cake := seedProduct(t, db, "Chocolate Cake", "25.99", 0)

	require.NoError(t, repo.Restock(context.Background(), db, cake.ID, 3))
	require.NoError(t, repo.Restock(context.Background(), db, cake.ID, 0))

	got, err := repo.GetProduct(context.Background(), cake.ID)
	require.NoError(t, err)
	require.Equal(t, 3, got.Stock)
}

func TestErrorConstructors(t *testing.T) {
	id := uuid.New()
	require.Equal(t, pkgerrors.CodeProductNotFound, ProductNotFound(id).Code())
	require.Equal(t, "Cake is out of stock", OutOfStock(id, "Cake").Message())
	require.Equal(t, "only 2 left in stock", InsufficientStock(id, 5, 2).Message())
}
