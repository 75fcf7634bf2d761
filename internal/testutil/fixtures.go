package testutil

import (
	"context"
	"testing"

	"github.com/joshua-takyi/nestly/internal/models"
	"github.com/stretchr/testify/require"
)

func SeedProperty(t testing.TB, s *Store, title string) *models.Property {
	t.Helper()
	p, err := s.CreateProperty(context.Background(), &models.Property{
		Title:        title,
		Description:  "Bright rooms close to the metro line and market",
		PropertyType: models.PropertyApartment,
		BHK:          "2BHK",
		Price:        25000,
		Address:      "12 Residency Road",
		City:         "Bengaluru",
	})
	require.NoError(t, err)
	return p
}

func SeedUser(t testing.TB, s *Store, username, role string) *models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), &models.User{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "not-a-real-hash",
		FirstName: username,
		LastName:  "Tester",
		Role:      role,
	})
	require.NoError(t, err)
	return u
}
