package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// TaskListKey returns the cache key for the ordered task list of a
// level+section pair.
func (r *CacheKeyStruct) TaskListKey(levelID, sectionID int) string {
	return fmt.Sprintf("catalog:level:%d:section:%d:tasks", levelID, sectionID)
}

var CacheKey = NewCacheKeyStruct()
