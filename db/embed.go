// Package db 内嵌数据库迁移脚本
package db

import "embed"

// Migrations 迁移脚本，位于 migrations/ 子目录
//
//go:embed migrations/*.sql
var Migrations embed.FS
