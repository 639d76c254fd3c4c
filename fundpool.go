/*
Copyright 2025 Openalms Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package fundpool

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/openalms/fundpool/config"
	"github.com/openalms/fundpool/database"
	redlock "github.com/openalms/fundpool/internal/lock"
	redis_db "github.com/openalms/fundpool/internal/redis-db"
	"github.com/openalms/fundpool/model"

	"github.com/openalms/fundpool/internal/apierror"
)

// Fundpool is the service layer of the donation backend. Every operation that
// touches the pooled-fund ledger goes through it so the distributed lock and
// the invariant checks cannot be bypassed.
type Fundpool struct {
	redis      redis.UniversalClient
	datasource database.IDataSource
}

// NewFundpool initializes the service with the provided database datasource.
// It fetches the configuration and connects the Redis client backing the
// ledger lock.
//
// Parameters:
// - db database.IDataSource: The datasource for database operations.
//
// Returns:
// - *Fundpool: A pointer to the newly created Fundpool instance.
// - error: An error if any of the initialization steps fail.
func NewFundpool(db database.IDataSource) (*Fundpool, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)})
	if err != nil {
		return nil, err
	}
	newFundpool := &Fundpool{datasource: db, redis: redisClient.Client()}
	return newFundpool, nil
}

func ledgerLockKey() string {
	return fmt.Sprintf("lock:%s", model.PoolLedgerID)
}

// withLedgerLock acquires the distributed ledger lock, loads the current ledger
// row and hands it to fn. fn mutates the ledger and persists it together with
// any allocation rows; the version column catches writers that slipped past the
// lock. A lock that cannot be acquired within the configured wait surfaces as a
// TIMEOUT error.
func (f *Fundpool) withLedgerLock(ctx context.Context, fn func(ctx context.Context, ledger *model.FundLedger) error) error {
	configuration, err := config.Fetch()
	if err != nil {
		return err
	}
	lockTTL := time.Duration(configuration.Ledger.LockTTLMS) * time.Millisecond
	lockWait := time.Duration(configuration.Ledger.LockWaitMS) * time.Millisecond

	locker := redlock.NewLocker(f.redis, ledgerLockKey(), model.GenerateUUIDWithSuffix("lock"))
	if err := locker.WaitLock(ctx, lockTTL, lockWait); err != nil {
		return apierror.NewAPIError(apierror.ErrTimeout, "fund ledger is busy, please retry", err)
	}
	defer func() {
		if err := locker.Unlock(context.Background()); err != nil {
			logrus.Errorf("failed to release ledger lock: %v", err)
		}
	}()

	ledger, err := f.datasource.GetFundLedger(model.PoolLedgerID)
	if err != nil {
		return err
	}

	if err := fn(ctx, ledger); err != nil {
		return err
	}
	return nil
}
