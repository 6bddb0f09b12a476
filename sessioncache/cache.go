// Package sessioncache stores sink configurations in a JSON file.
package sessioncache

import (
	"fmt"
	"io/ioutil"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/rigado/isoal"
)

type configCache struct {
	filename string
	lock     sync.RWMutex
}

func New(filename string) isoal.ConfigCache {
	cc := configCache{
		filename: filename,
	}

	return &cc
}

func key(conn uint16) string {
	return fmt.Sprintf("0x%04x", conn)
}

func (cc *configCache) Store(conn uint16, cfg isoal.SinkConfig, replace bool) error {
	cc.lock.Lock()
	defer cc.lock.Unlock()

	cache, err := cc.loadExisting()
	if err != nil {
		return err
	}

	_, ok := cache[key(conn)]
	if ok && !replace {
		return fmt.Errorf("cache already contains sink config for %s", key(conn))
	}

	cache[key(conn)] = cfg

	return cc.storeCache(cache)
}

func (cc *configCache) Load(conn uint16) (isoal.SinkConfig, error) {
	cc.lock.RLock()
	defer cc.lock.RUnlock()

	cache, err := cc.loadExisting()
	if err != nil {
		return isoal.SinkConfig{}, err
	}

	cfg, ok := cache[key(conn)]
	if !ok {
		return isoal.SinkConfig{}, fmt.Errorf("sink config for %s not found in cache", key(conn))
	}

	return cfg, nil
}

func (cc *configCache) Clear() error {
	cc.lock.Lock()
	defer cc.lock.Unlock()

	err := os.Remove(cc.filename)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

func (cc *configCache) loadExisting() (map[string]isoal.SinkConfig, error) {
	_, err := os.Stat(cc.filename)
	if os.IsNotExist(err) {
		return map[string]isoal.SinkConfig{}, nil
	}

	in, err := ioutil.ReadFile(cc.filename)
	if err != nil {
		return nil, err
	}

	var cache map[string]isoal.SinkConfig
	err = jsoniter.Unmarshal(in, &cache)
	if err != nil {
		return nil, err
	}
	if cache == nil {
		cache = map[string]isoal.SinkConfig{}
	}

	return cache, nil
}

func (cc *configCache) storeCache(cache map[string]isoal.SinkConfig) error {
	out, err := jsoniter.Marshal(cache)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(cc.filename, out, 0644)
}
