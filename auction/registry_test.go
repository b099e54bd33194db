package auction

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

// fakeModule is a minimal Module for registry tests.
type fakeModule struct {
	kind Kind
}

func (f *fakeModule) Kind() Kind                          { return f.kind }
func (f *fakeModule) MinAuctionDuration() time.Duration   { return time.Hour }
func (f *fakeModule) Auction(uint64, AuctionParams) error { return nil }
func (f *fakeModule) CancelAuction(uint64) error          { return nil }
func (f *fakeModule) GetLot(uint64) (Lot, error)          { return Lot{}, nil }
func (f *fakeModule) IsLive(uint64) bool                  { return false }

// fakePurchaser adds the atomic capability.
type fakePurchaser struct {
	fakeModule
}

func (f *fakePurchaser) Purchase(uint64, string, *uint256.Int, *uint256.Int) (*uint256.Int, error) {
	return uint256.NewInt(0), nil
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	m := &fakePurchaser{fakeModule{kind: KindAtomic}}
	assert.NoError(t, r.Register(m))

	got, err := r.Module(KindAtomic)
	assert.NoError(t, err)
	check.Equal(t, KindAtomic, got.Kind())

	_, err = r.Module(KindSealedBatch)
	check.Error(t, err)
}

func TestRegistryDuplicateKind(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Register(&fakeModule{kind: KindAtomic}))
	check.Error(t, r.Register(&fakeModule{kind: KindAtomic}))
}

func TestRegistryNilModule(t *testing.T) {
	r := NewRegistry()
	check.Error(t, r.Register(nil))
}

func TestRegistryCapabilities(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Register(&fakePurchaser{fakeModule{kind: KindAtomic}}))
	assert.NoError(t, r.Register(&fakeModule{kind: KindSealedBatch}))

	p, err := r.Purchaser(KindAtomic)
	assert.NoError(t, err)
	check.NotNil(t, p)

	// The plain fake has no batch capability, and neither module crosses over.
	_, err = r.Batcher(KindSealedBatch)
	check.Error(t, err)
	_, err = r.Purchaser(KindSealedBatch)
	check.Error(t, err)
	_, err = r.Batcher(KindAtomic)
	check.Error(t, err)
}

func TestKindString(t *testing.T) {
	check.Equal(t, "atomic", KindAtomic.String())
	check.Equal(t, "sealed-batch", KindSealedBatch.String())
	check.Equal(t, "unknown", Kind(99).String())
}
