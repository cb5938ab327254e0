package storefront

import (
	"context"

	"github.com/MarkoPoloResearchLab/storefront/pkg/checkout"
	"go.uber.org/zap"
)

// zapOperationLogger forwards checkout operations to zap.
type zapOperationLogger struct {
	logger *zap.Logger
}

// NewOperationLogger adapts logger to checkout.OperationLogger.
func NewOperationLogger(logger *zap.Logger) checkout.OperationLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return zapOperationLogger{logger: logger.Named("checkout")}
}

func (operationLogger zapOperationLogger) LogOperation(_ context.Context, entry checkout.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
		zap.String("cart_id", entry.CartID),
	}
	if entry.AddressID != "" {
		fields = append(fields, zap.String("address_id", entry.AddressID))
	}
	if entry.PromoCode != "" {
		fields = append(fields, zap.String("promo_code", entry.PromoCode))
	}
	if entry.OrderID != "" {
		fields = append(fields, zap.String("order_id", entry.OrderID))
	}
	if entry.Step != 0 {
		fields = append(fields, zap.Stringer("step", entry.Step))
	}
	if entry.Error != nil {
		operationLogger.logger.Warn("checkout operation failed", append(fields, zap.Error(entry.Error))...)
		return
	}
	operationLogger.logger.Info("checkout operation", fields...)
}
