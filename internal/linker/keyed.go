package linker

// keyedMap 按首次插入顺序遍历的键值表，覆盖写入不改变位置
type keyedMap[V any] struct {
	keys []string
	m    map[string]V
}

func newKeyedMap[V any]() *keyedMap[V] {
	return &keyedMap[V]{m: make(map[string]V)}
}

func (k *keyedMap[V]) Get(key string) (V, bool) {
	v, ok := k.m[key]
	return v, ok
}

func (k *keyedMap[V]) Set(key string, v V) {
	if _, ok := k.m[key]; !ok {
		k.keys = append(k.keys, key)
	}
	k.m[key] = v
}

func (k *keyedMap[V]) Len() int { return len(k.keys) }

// Each 按插入顺序遍历
func (k *keyedMap[V]) Each(fn func(key string, v V)) {
	for _, key := range k.keys {
		fn(key, k.m[key])
	}
}
