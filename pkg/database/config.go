// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const dataTablePrefix = "t_"

type SourceConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type MySQLConfig struct {
	SourceConfig `mapstructure:",squash"`
	// Replicas 为空时不启用读写分离
	Replicas []SourceConfig `mapstructure:"replicas"`
}

type Database struct {
	// Output 是否输出 SQL 日志
	Output       bool          `mapstructure:"output"`
	MaxOpenConns int           `mapstructure:"maxOpenConns"`
	MaxIdleConns int           `mapstructure:"maxIdleConns"`
	MaxLifetime  time.Duration `mapstructure:"maxLifetime"`
	MaxIdleTime  time.Duration `mapstructure:"maxIdleTime"`
	SlowQuery    time.Duration `mapstructure:"slowQuery"`
	MySQL        MySQLConfig   `mapstructure:"mysql"`
}

func (d *Database) SetDefaults() {
	if d.MaxOpenConns <= 0 {
		d.MaxOpenConns = 50
	}
	if d.MaxIdleConns <= 0 {
		d.MaxIdleConns = 10
	}
	if d.MaxLifetime <= 0 {
		d.MaxLifetime = 5 * time.Minute
	}
	if d.MaxIdleTime <= 0 {
		d.MaxIdleTime = time.Minute
	}
	if d.SlowQuery <= 0 {
		d.SlowQuery = 200 * time.Millisecond
	}
	if d.MySQL.Port == "" {
		d.MySQL.Port = "3306"
	}
}

func (s SourceConfig) DSN() string {
	port := s.Port
	if port == "" {
		port = "3306"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		s.User, s.Password, s.Host, port, s.DBName)
}

func (s SourceConfig) Validate() error {
	if s.Host == "" || s.User == "" || s.DBName == "" {
		return fmt.Errorf("incomplete database source config: host, user and dbname are required")
	}
	return nil
}

func buildDialectors(configs []SourceConfig) ([]gorm.Dialector, error) {
	dialectors := make([]gorm.Dialector, 0, len(configs))
	for _, c := range configs {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		dialectors = append(dialectors, mysql.Open(c.DSN()))
	}
	return dialectors, nil
}
