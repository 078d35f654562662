package usecase

import (
	"travel-booking/internal/data/repository"
	"travel-booking/internal/gateway"
	"travel-booking/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Service struct {
	Payment PaymentService
	Poller  PollerService
	Sweeper SweeperService
}

func NewService(repo *repository.Repository, gw gateway.Adapter, cache *redis.Client, config *utils.Config, log *zap.Logger) *Service {
	payment := NewPaymentService(repo, gw, cache, config, log)

	return &Service{
		Payment: payment,
		Poller:  NewPollerService(repo, gw, payment, config, log),
		Sweeper: NewSweeperService(repo, cache, config, log),
	}
}
