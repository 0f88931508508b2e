//go:build integration

package repository_test

import (
	"testing"

	"rep-challenge-system/repository"
	"rep-challenge-system/repository/pgtest"
)

func TestGormStore(t *testing.T) {
	db := pgtest.Start(t)
	repository.RunStoreContract(t, func(t *testing.T) repository.Store {
		pgtest.Reset(t, db)
		return repository.NewGormStore(db)
	})
}
