package models

import (
	"log"

	"bitbucket.org/mmdatafocus/solarops_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Organization{}, &User{},
		&Vendor{}, &Plant{},
		&WorkOrder{}, &WorkOrderPlant{},
		&Alert{},
		&VendorSyncRun{}, &VendorSyncRecordError{},
		&History{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
