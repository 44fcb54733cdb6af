package testutil

import (
	"time"

	"agency-portal/models"

	"github.com/google/uuid"
)

func CreateTestUser() *models.User {
	now := time.Now().UTC()
	return &models.User{
		ID:        uuid.New().String(),
		Email:     "agent-" + uuid.NewString()[:8] + "@example.com",
		FirstName: "Test",
		LastName:  "Agent",
		Phone:     "555-0100",
		Role:      models.RoleAgent,
		Password:  "not-a-real-hash",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func CreateTestEventLog(userID string) *models.EventLog {
	now := time.Now().UTC()
	return &models.EventLog{
		Type:        models.LoginSucceeded,
		Description: "Test event message",
		UserID:      &userID,
		CreatedAt:   &now,
	}
}
