package database

import coreconfig "github.com/m3rciful/openspace/core/config"

// Config holds PostgreSQL connection settings.
type Config = coreconfig.DatabaseConfig
