// Package service is the caller-facing layer of the access core.  It
// applies the request identity (tenant, role, room assignments) to every
// call, validates input, scopes transactions and observes latency budgets.
package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/iliyamo/stadium-hospitality/internal/model"
	"github.com/iliyamo/stadium-hospitality/internal/repository"
)

var validate = validator.New()

// validateStruct runs the struct tags of s and folds failures into a single
// ErrValidation listing "field:tag" pairs.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %v", repository.ErrValidation, err)
	}
	fields := make([]string, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, strings.ToLower(fe.Field())+":"+fe.Tag())
	}
	sort.Strings(fields)
	return fmt.Errorf("%w: invalid %s", repository.ErrValidation, strings.Join(fields, ", "))
}

// observe logs op at Warn when it took longer than budget.  The operation
// is never aborted.
func observe(log *zap.Logger, op string, started time.Time, budget time.Duration, fields ...zap.Field) {
	elapsed := time.Since(started)
	if budget <= 0 || elapsed <= budget {
		return
	}
	log.Warn("slow operation", append(fields,
		zap.String("op", op),
		zap.Float64("elapsed_ms", float64(elapsed.Microseconds())/1000.0),
		zap.Int64("budget_ms", budget.Milliseconds()),
	)...)
}

// stadiumScope returns the tenant filter for a read.  Non super admins are
// pinned to their own stadium; a super admin may pass any stadium, or zero
// for every tenant.
func stadiumScope(a model.Actor, requested uint64) uint64 {
	if a.IsSuperAdmin() {
		return requested
	}
	return a.StadiumID
}

// logFailure records err with the operation context before it propagates.
// Expected outcomes (not found, invalid transition, validation) are logged
// at Info, everything else at Error.
func logFailure(log *zap.Logger, op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("op", op), zap.Error(err))
	switch repository.Kind(err) {
	case repository.ErrNotFound, repository.ErrInvalidTransition, repository.ErrValidation, repository.ErrConflict:
		log.Info("request rejected", fields...)
	default:
		log.Error("request failed", fields...)
	}
}
