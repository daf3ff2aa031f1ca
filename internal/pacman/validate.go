package pacman

// Checksum validators for entity kinds whose formats define one. Each takes
// the already-normalized candidate and reports whether it passes. Formats
// without a verifiable checksum are accepted on shape alone by the caller.

import (
	"crypto/sha256"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"
)

var big97 = big.NewInt(97)

// mod97 computes the ISO 7064 mod-97 residue of a string where letters are
// expanded to two-digit values (A=10 .. Z=35).
func mod97(s string) int {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			sb.WriteByte(c)
		case c >= 'A' && c <= 'Z':
			v := int(c-'A') + 10
			sb.WriteByte(byte('0' + v/10))
			sb.WriteByte(byte('0' + v%10))
		default:
			return -1
		}
	}
	n, ok := new(big.Int).SetString(sb.String(), 10)
	if !ok {
		return -1
	}
	return int(new(big.Int).Mod(n, big97).Int64())
}

// validIBAN checks an uppercased, space-stripped IBAN: rotate the first four
// characters to the end, then the mod-97 residue must be 1.
func validIBAN(iban string) bool {
	if len(iban) < 15 || len(iban) > 34 {
		return false
	}
	return mod97(iban[4:]+iban[:4]) == 1
}

// validLEI checks the ISO 17442 checksum: the 20-character code itself must
// have mod-97 residue 1.
func validLEI(lei string) bool {
	if len(lei) != 20 {
		return false
	}
	return mod97(lei) == 1
}

// validISIN runs the Luhn check over the letter-expanded digit string.
func validISIN(isin string) bool {
	if len(isin) != 12 {
		return false
	}
	var digits []int
	for i := 0; i < len(isin); i++ {
		c := isin[i]
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, int(c-'0'))
		case c >= 'A' && c <= 'Z':
			v := int(c-'A') + 10
			digits = append(digits, v/10, v%10)
		default:
			return false
		}
	}
	return luhn(digits)
}

// luhn validates a digit sequence whose last digit is the check digit.
func luhn(digits []int) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// validIMO checks the 7-digit IMO number: digits 1-6 weighted 7..2, sum mod
// 10 equals the seventh digit.
func validIMO(num string) bool {
	if len(num) != 7 {
		return false
	}
	sum := 0
	for i := 0; i < 6; i++ {
		if num[i] < '0' || num[i] > '9' {
			return false
		}
		sum += int(num[i]-'0') * (7 - i)
	}
	return sum%10 == int(num[6]-'0')
}

// validSIREN runs Luhn over the 9-digit French business number.
func validSIREN(num string) bool {
	if len(num) != 9 {
		return false
	}
	digits := make([]int, 9)
	for i := 0; i < 9; i++ {
		if num[i] < '0' || num[i] > '9' {
			return false
		}
		digits[i] = int(num[i] - '0')
	}
	return luhn(digits)
}

const btcAlphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
const xrpAlphabet = "rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz"

// base58Check decodes an address under the given alphabet and verifies the
// double-SHA256 checksum over the payload.
func base58Check(addr, alphabet string) bool {
	index := make(map[byte]int64, len(alphabet))
	for i := 0; i < len(alphabet); i++ {
		index[alphabet[i]] = int64(i)
	}

	n := new(big.Int)
	radix := big.NewInt(58)
	for i := 0; i < len(addr); i++ {
		v, ok := index[addr[i]]
		if !ok {
			return false
		}
		n.Mul(n, radix)
		n.Add(n, big.NewInt(v))
	}

	payload := n.Bytes()
	// Leading zero bytes are encoded as the alphabet's zero character.
	for i := 0; i < len(addr) && addr[i] == alphabet[0]; i++ {
		payload = append([]byte{0}, payload...)
	}
	if len(payload) < 5 {
		return false
	}

	body, check := payload[:len(payload)-4], payload[len(payload)-4:]
	h1 := sha256.Sum256(body)
	h2 := sha256.Sum256(h1[:])
	for i := 0; i < 4; i++ {
		if check[i] != h2[i] {
			return false
		}
	}
	return true
}

const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// validBech32 verifies a bech32 (BIP-173) string's checksum. BIP-173
// rejects mixed-case strings.
func validBech32(s string) bool {
	if s != strings.ToLower(s) && s != strings.ToUpper(s) {
		return false
	}
	s = strings.ToLower(s)
	pos := strings.LastIndexByte(s, '1')
	if pos < 1 || pos+7 > len(s) || len(s) > 90 {
		return false
	}
	hrp, data := s[:pos], s[pos+1:]

	values := make([]int, 0, len(hrp)*2+1+len(data))
	for i := 0; i < len(hrp); i++ {
		values = append(values, int(hrp[i])>>5)
	}
	values = append(values, 0)
	for i := 0; i < len(hrp); i++ {
		values = append(values, int(hrp[i])&31)
	}
	for i := 0; i < len(data); i++ {
		v := strings.IndexByte(bech32Charset, data[i])
		if v < 0 {
			return false
		}
		values = append(values, v)
	}

	chk := bech32Polymod(values)
	// BIP-173 (const 1) or BIP-350 bech32m (const 0x2bc830a3); segwit v0
	// uses the former, v1+ the latter.
	return chk == 1 || chk == 0x2bc830a3
}

func bech32Polymod(values []int) int {
	gen := []int{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	chk := 1
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ v
		for i := 0; i < 5; i++ {
			if (top>>i)&1 == 1 {
				chk ^= gen[i]
			}
		}
	}
	return chk
}

// validETH accepts an all-lowercase or all-uppercase hex address, and
// verifies the EIP-55 checksum when the hex part is mixed-case.
func validETH(addr string) bool {
	if len(addr) != 42 || addr[:2] != "0x" {
		return false
	}
	hex := addr[2:]
	lower := strings.ToLower(hex)
	if hex == lower || hex == strings.ToUpper(hex) {
		return true
	}

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := h.Sum(nil)
	for i := 0; i < 40; i++ {
		c := hex[i]
		if c >= '0' && c <= '9' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		upper := nibble&0xf >= 8
		if upper != (c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}
