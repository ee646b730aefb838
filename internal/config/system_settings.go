package config

import "os"

const DATABASE_TYPE = "RFLOW_DATABASE_TYPE"
const DATABASE_URL = "RFLOW_DATABASE_URL"
const DATABASE_SQLLITE_FILE_NAME = "RFLOW_DATABASE_SQLLITE_FILE_NAME"
const SERVER_WEB_PORT = "RFLOW_SERVER_WEB_PORT"
const DEFINITIONS_DIR = "RFLOW_DEFINITIONS_DIR"   //directory scanned for workflow definition yaml files
const SYSTEM_PRINCIPAL = "RFLOW_SYSTEM_PRINCIPAL" //principal recorded against automatic step executions

//metadata field the assigned-reviewer selection reads
const ASSIGNED_REVIEWER_FIELD = "RFLOW_ASSIGNED_REVIEWER_FIELD"

const DATABASE_TYPE_POSTGRES = "POSTGRES"
const DATABASE_TYPE_MYSQL = "MYSQL"
const DATABASE_TYPE_SQLLITE = "SQLLITE"

func GetSystemSettingString(settingKey string) string {
	val := os.Getenv(settingKey)
	if val != "" {
		return val
	}
	if settingKey == SERVER_WEB_PORT {
		return "8080"
	}
	if settingKey == DEFINITIONS_DIR {
		return "./workflows"
	}
	if settingKey == SYSTEM_PRINCIPAL {
		return "system"
	}
	if settingKey == DATABASE_SQLLITE_FILE_NAME {
		return "./reviewflow.db"
	}
	if settingKey == ASSIGNED_REVIEWER_FIELD {
		return "reviewers"
	}
	return ""
}
