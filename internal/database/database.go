package database

import (
	"fmt"

	"discipline-journal-go/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase creates a new database connection, migrates the schema and
// seeds the achievement catalogue.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	if err := Seed(db); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates or updates the tables for every model. Existing rows are kept.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Trade{},
		&models.TradingRule{},
		&models.RuleViolation{},
		&models.UserProgress{},
		&models.UserGoal{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.DailyCheckIn{},
		&models.Notification{},
	); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}

// Seed populates the achievement catalogue, leaving existing definitions untouched.
func Seed(db *gorm.DB) error {
	for _, a := range DefaultAchievements() {
		achievement := a
		if err := db.Where(models.Achievement{Code: a.Code}).FirstOrCreate(&achievement).Error; err != nil {
			return fmt.Errorf("failed to seed achievement '%s': %w", a.Code, err)
		}
	}
	return nil
}

// DefaultAchievements is the built-in achievement catalogue.
func DefaultAchievements() []models.Achievement {
	return []models.Achievement{
		{Code: "first_check_in", Name: "First Pour", Description: "Complete your first daily check-in",
			RequirementType: models.RequirementCheckIns, RequirementValue: 1, StarReward: 1, XPReward: 10, BonusMultiplier: 1.0},
		{Code: "check_ins_30", Name: "Regular", Description: "Complete 30 daily check-ins",
			RequirementType: models.RequirementCheckIns, RequirementValue: 30, StarReward: 3, XPReward: 100, BonusMultiplier: 1.05},
		{Code: "streak_7", Name: "Week Warrior", Description: "Check in 7 days in a row",
			RequirementType: models.RequirementStreak, RequirementValue: 7, StarReward: 2, XPReward: 50, BonusMultiplier: 1.05},
		{Code: "streak_30", Name: "Iron Discipline", Description: "Check in 30 days in a row",
			RequirementType: models.RequirementStreak, RequirementValue: 30, StarReward: 5, XPReward: 250, BonusMultiplier: 1.1},
		{Code: "level_5", Name: "Seasoned", Description: "Reach level 5",
			RequirementType: models.RequirementLevel, RequirementValue: 5, StarReward: 2, XPReward: 0, BonusMultiplier: 1.05},
		{Code: "level_10", Name: "Veteran", Description: "Reach level 10",
			RequirementType: models.RequirementLevel, RequirementValue: 10, StarReward: 5, XPReward: 0, BonusMultiplier: 1.1},
		{Code: "first_unit", Name: "First Crack", Description: "Complete your first compounding unit",
			RequirementType: models.RequirementUnits, RequirementValue: 1, StarReward: 2, XPReward: 50, BonusMultiplier: 1.05},
		{Code: "units_10", Name: "Ten Down", Description: "Complete 10 compounding units",
			RequirementType: models.RequirementUnits, RequirementValue: 10, StarReward: 5, XPReward: 300, BonusMultiplier: 1.15},
		{Code: "discipline_8", Name: "Steady Hand", Description: "Hold a discipline score of 8 or more",
			RequirementType: models.RequirementDiscipline, RequirementValue: 8, StarReward: 3, XPReward: 75, BonusMultiplier: 1.05},
		{Code: "journal_10", Name: "Chronicler", Description: "Write notes on 10 trades",
			RequirementType: models.RequirementJournal, RequirementValue: 10, StarReward: 2, XPReward: 50, BonusMultiplier: 1.0},
	}
}
