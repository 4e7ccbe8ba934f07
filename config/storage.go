package config

import (
	"errors"
	"path/filepath"
	"time"
)

// StorageConfig 存储配置
//
// 数据目录结构：
//
//	${DataDir}/
//	└── reload.db/    # BadgerDB
type StorageConfig struct {
	// DataDir 数据目录
	DataDir string `json:"data_dir"`

	// SyncWrites 每次写入同步到磁盘
	SyncWrites bool `json:"sync_writes"`

	// GCInterval 值日志 GC 间隔
	GCInterval Duration `json:"gc_interval"`

	// CleanupInterval 过期数据清理间隔
	CleanupInterval Duration `json:"cleanup_interval"`

	// Replicas 存储应答中报告的副本节点数
	Replicas int `json:"replicas"`
}

// DefaultStorageConfig 返回默认存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		DataDir:         "./data",
		GCInterval:      Duration(10 * time.Minute),
		CleanupInterval: Duration(time.Minute),
		Replicas:        2,
	}
}

// Validate 验证存储配置
func (c *StorageConfig) Validate() error {
	if c.DataDir == "" {
		return errors.New("storage: data_dir cannot be empty")
	}
	if c.CleanupInterval <= 0 {
		return errors.New("storage: cleanup_interval must be positive")
	}
	if c.Replicas < 0 {
		return errors.New("storage: replicas cannot be negative")
	}
	return nil
}

// DBPath 返回 BadgerDB 数据库路径
func (c *StorageConfig) DBPath() string {
	return filepath.Join(c.DataDir, "reload.db")
}
