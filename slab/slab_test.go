package slab

import (
	"testing"

	"page"
)

func mkPages(npages int) *page.Allocator {
	a := page.New(0, npages)
	buf := make([]byte, npages*page.Size)
	a.SetKVAMapper(func(pa page.PA) []byte {
		return buf[int(pa) : int(pa)+page.Size]
	})
	a.InitLow(npages * page.Size)
	a.InitHigh()
	return a
}

type widget struct {
	a, b int64
}

func TestGetPutRoundTrip(t *testing.T) {
	pages := mkPages(4)
	ctorCalls, dtorCalls := 0, 0
	p := Create("widget", 16, 8, pages,
		func(obj []byte) { ctorCalls++ },
		func(obj []byte) { dtorCalls++ })

	obj := p.Get()
	if obj == nil {
		t.Fatal("Get returned nil on fresh pool")
	}
	if ctorCalls == 0 {
		t.Fatal("ctor never ran")
	}
	p.Put(obj)
	if dtorCalls == 0 {
		t.Fatal("dtor never ran")
	}
}

func TestGetNeverAliasesLiveObjects(t *testing.T) {
	pages := mkPages(4)
	p := Create("widget", 16, 8, pages, nil, nil)

	seen := map[int]bool{}
	var live [][]byte
	for i := 0; i < 20; i++ {
		o := p.Get()
		if o == nil {
			t.Fatalf("Get failed after %d objects", i)
		}
		off, _ := uintptrDiff(&o[0], &o[0])
		_ = off
		for _, l := range live {
			if &l[0] == &o[0] {
				t.Fatal("Get returned an object already live")
			}
		}
		live = append(live, o)
		seen[i] = true
	}
}

func TestPutFreesEmptySlabBackToPages(t *testing.T) {
	pages := mkPages(4)
	p := Create("widget", 16, 8, pages, nil, nil)

	var objs [][]byte
	for {
		o := p.Get()
		if o == nil {
			break
		}
		objs = append(objs, o)
	}
	if len(objs) == 0 {
		t.Fatal("never allocated anything")
	}
	for _, o := range objs {
		p.Put(o)
	}

	// every page should be back on the page allocator's free lists
	recovered := 0
	for {
		blk := pages.AllocOne(0, page.TagAnon)
		if blk == nil {
			break
		}
		recovered++
	}
	if recovered == 0 {
		t.Fatal("freeing all objects never returned any page block")
	}
}

func TestPutOfForeignPointerPanics(t *testing.T) {
	pages := mkPages(4)
	p := Create("widget", 16, 8, pages, nil, nil)
	_ = p.Get()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on foreign Put")
		}
	}()
	p.Put(make([]byte, 16))
}
