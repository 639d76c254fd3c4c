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

package database

import (
	"database/sql"
	"log"
	"sync"

	_ "github.com/lib/pq"

	"github.com/openalms/fundpool/config"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn *sql.DB
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database connection error: %v", err)
		return nil, err
	}
	err = createProjectTable(db)
	if err != nil {
		return nil, err
	}
	err = createFundLedgerTable(db)
	if err != nil {
		return nil, err
	}
	err = createAllocationRequestTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// createFundLedgerTable creates the PostgreSQL table holding the singleton
// pooled-fund ledger row. The version column backs optimistic locking.
func createFundLedgerTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS fund_ledger (
			id SERIAL PRIMARY KEY,
			ledger_id TEXT NOT NULL UNIQUE,
			total_balance BIGINT NOT NULL DEFAULT 0,
			available_balance BIGINT NOT NULL DEFAULT 0,
			allocated_amount BIGINT NOT NULL DEFAULT 0,
			pending_amount BIGINT NOT NULL DEFAULT 0,
			warning_line BIGINT NOT NULL DEFAULT 0,
			currency TEXT NOT NULL,
			version BIGINT NOT NULL DEFAULT 0,
			last_updated TIMESTAMP NOT NULL DEFAULT NOW(),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			meta_data JSONB
		)
	`)
	if err != nil {
		log.Printf("Error creating fund_ledger table: %v", err)
	}
	return err
}

// createAllocationRequestTable creates the PostgreSQL table for allocation requests.
func createAllocationRequestTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS allocation_requests (
			id SERIAL PRIMARY KEY,
			allocation_id TEXT NOT NULL UNIQUE,
			project_id TEXT NOT NULL REFERENCES projects(project_id),
			amount FLOAT8 NOT NULL,
			precision FLOAT8 NOT NULL DEFAULT 1,
			precise_amount BIGINT NOT NULL,
			currency TEXT NOT NULL,
			description TEXT,
			status TEXT NOT NULL CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED', 'COMPLETED')),
			requested_by TEXT NOT NULL,
			decided_by TEXT,
			decision_comment TEXT,
			decided_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			meta_data JSONB
		)
	`)
	if err != nil {
		log.Printf("Error creating allocation_requests table: %v", err)
	}
	return err
}

// createProjectTable creates the PostgreSQL table for the project registry.
func createProjectTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS projects (
			id SERIAL PRIMARY KEY,
			project_id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			funding_model TEXT NOT NULL CHECK (funding_model IN ('direct', 'general_pool')),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			meta_data JSONB
		)
	`)
	if err != nil {
		log.Printf("Error creating projects table: %v", err)
	}
	return err
}
