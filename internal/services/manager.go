package services

import (
	"log/slog"

	"github.com/unitest-platform/exam-engine/internal/cache"
	"github.com/unitest-platform/exam-engine/internal/clock"
	"github.com/unitest-platform/exam-engine/internal/events"
	"github.com/unitest-platform/exam-engine/internal/repositories"
	"github.com/unitest-platform/exam-engine/internal/utils"
)

type serviceManager struct {
	attempt  AttemptService
	override OverrideService
}

func NewServiceManager(
	repo repositories.Repository,
	logger *slog.Logger,
	validator *utils.Validator,
	clk clock.Clock,
	publisher events.EventPublisher,
	cacheService cache.CacheService,
) ServiceManager {
	return &serviceManager{
		attempt:  NewAttemptService(repo, logger, validator, clk, publisher, cacheService),
		override: NewOverrideService(repo, logger, validator, clk, publisher),
	}
}

func (m *serviceManager) Attempt() AttemptService   { return m.attempt }
func (m *serviceManager) Override() OverrideService { return m.override }
