package state

import "strconv"

var (
	giftAdminKey          = []byte("gift/admin")
	giftOracleConfigKey   = []byte("gift/oracle-config")
	giftSlippageConfigKey = []byte("gift/slippage-config")
	giftNextIDKey         = []byte("gift/next-id")
	giftRecordPrefix      = []byte("gift/record/")
	giftFeeBpsKey         = []byte("gift/fee-bps")
	giftLiquidityKey      = []byte("gift/liquidity")
	priceCacheKey         = []byte("pricing/cache")
)

func giftRecordKey(id uint64) []byte {
	suffix := strconv.FormatUint(id, 10)
	buf := make([]byte, len(giftRecordPrefix)+len(suffix))
	copy(buf, giftRecordPrefix)
	copy(buf[len(giftRecordPrefix):], suffix)
	return buf
}
