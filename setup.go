package main

import (
	"github.com/passlock/go-passlock-server/global"
	"github.com/passlock/go-passlock-server/repository"
)

// Configure DB Repositories and create DB Selector
func ConfigDBSelector() repository.DBSelector {
	userRepo := repository.NewDataAPIRepository(global.Conf.DataAPI, repository.Users, false)
	accountsRepo := repository.NewDataAPIRepository(global.Conf.DataAPI, repository.Accounts, false)
	activityRepo := repository.NewDataAPIRepository(global.Conf.DataAPI, repository.UserActivities, false)

	// REPOSITORY definitions
	dbSelector := repository.NewSelector()
	dbSelector.AddDB(userRepo)
	dbSelector.AddDB(accountsRepo)
	dbSelector.AddDB(activityRepo)

	return dbSelector
}
