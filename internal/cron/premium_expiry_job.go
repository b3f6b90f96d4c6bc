package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/roasapp-backend/pkg/logger"
)

// PremiumExpiryJobName labels the premium sweep in logs and metrics.
const PremiumExpiryJobName = "premium-expiry"

type premiumExpirer interface {
	ExpirePremium(ctx context.Context) (int64, error)
}

// PremiumExpiryJobParams configures the premium sweep.
type PremiumExpiryJobParams struct {
	Logger       *logger.Logger
	Entitlements premiumExpirer
}

// NewPremiumExpiryJob clears the premium flag of installations whose premium window has ended.
// Status resolution already treats those windows as over; the sweep keeps the stored flag honest
// for the admin views.
func NewPremiumExpiryJob(params PremiumExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Entitlements == nil {
		return nil, fmt.Errorf("entitlements service required")
	}
	return &premiumExpiryJob{logg: params.Logger, entitlements: params.Entitlements}, nil
}

type premiumExpiryJob struct {
	logg         *logger.Logger
	entitlements premiumExpirer
}

func (j *premiumExpiryJob) Name() string { return PremiumExpiryJobName }

func (j *premiumExpiryJob) Run(ctx context.Context) error {
	n, err := j.entitlements.ExpirePremium(ctx)
	if err != nil {
		return fmt.Errorf("expire premium windows: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "expired", n), "premium expiry sweep complete")
	return nil
}
