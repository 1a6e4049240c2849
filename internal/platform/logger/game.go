package logger

import "go.uber.org/zap"

// NutrientGain logs a credit. Generators credit every frame, so this stays at debug.
func (l *Logger) NutrientGain(amount float64, source string) {
	l.z.Debug("Nutrients gained", zap.Float64("amount", amount), zap.String("source", source))
}

// NutrientSpend logs a debit.
func (l *Logger) NutrientSpend(amount float64, purpose string) {
	l.z.Debug("Nutrients spent", zap.Float64("amount", amount), zap.String("purpose", purpose))
}

// GeneratorPurchase logs a completed generator purchase.
func (l *Logger) GeneratorPurchase(name string, count int, cost float64) {
	l.z.Info("Generator purchased",
		zap.String("generator", name),
		zap.Int("count", count),
		zap.Float64("cost", cost))
}

func (l *Logger) Autosave() {
	l.z.Info("Game auto-saved successfully")
}

func (l *Logger) GameLoad() {
	l.z.Info("Game loaded from save")
}

// OfflineProgress logs the nutrients credited for time spent away.
func (l *Logger) OfflineProgress(nutrients, secondsAway float64) {
	l.z.Info("Offline progress",
		zap.Float64("nutrients", nutrients),
		zap.Float64("seconds_away", secondsAway))
}

// DevCommand logs a developer-only mutation. These are warnings so they stand out in production logs.
func (l *Logger) DevCommand(command string, details string) {
	l.z.Warn("Dev command executed", zap.String("command", command), zap.String("details", details))
}
