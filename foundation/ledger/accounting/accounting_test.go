package accounting_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/veralabs/ledger/foundation/ledger/accounting"
	"github.com/veralabs/ledger/foundation/ledger/genesis"
	"github.com/veralabs/ledger/foundation/ledger/record"
	"github.com/veralabs/ledger/foundation/ledger/signer"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	miner    = "0xFef311483Cc040e1A89fb9bb469eeB8A70935EF8"
	other    = "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32"
)

// senderAddress derives the ethereum address behind pkHexKey.
func senderAddress(t *testing.T) (string, record.Content) {
	t.Helper()

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to parse the private key: %s", err)
	}

	content := record.Content{
		PublicKey: signer.PublicKeyHex(&pk.PublicKey),
		Scheme:    signer.SchemeEthereum,
	}

	from, err := content.FromAddress()
	if err != nil {
		t.Fatalf("Should be able to derive the sender address: %s", err)
	}

	return from, content
}

// =============================================================================

func Test_FeeFold(t *testing.T) {
	from, base := senderAddress(t)

	type table struct {
		name    string
		balance uint64
		gasUsed uint64
		maxFee  uint64
		tip     uint64
		reward  uint64
		final   map[string]uint64
	}

	// Base fee per gas is 10 in every case. The effective price is
	// base+tip capped at maxFee, the fee is gasUsed times that, and the
	// flat base fee is burned to the sink.
	tt := []table{
		{
			name:    "sufficient",
			balance: 100,
			gasUsed: 5,
			maxFee:  11,
			tip:     2,
			reward:  100,
			final: map[string]uint64{
				from:               45,  // 100 - 5*11
				miner:              145, // reward 100 + collected 45
				signer.SinkAddress: 10,  // flat base fee
			},
		},
		{
			name:    "drained above base",
			balance: 50,
			gasUsed: 5,
			maxFee:  11,
			tip:     2,
			reward:  100,
			final: map[string]uint64{
				from:               0,
				miner:              140, // reward 100 + collected 40
				signer.SinkAddress: 10,
			},
		},
		{
			name:    "drained below base",
			balance: 5,
			gasUsed: 5,
			maxFee:  11,
			tip:     2,
			reward:  100,
			final: map[string]uint64{
				from:               0,
				miner:              100, // reward only
				signer.SinkAddress: 5,   // whatever existed burns
			},
		},
		{
			name:    "fee below base burns whole fee",
			balance: 100,
			gasUsed: 1,
			maxFee:  4,
			tip:     0,
			reward:  100,
			final: map[string]uint64{
				from:               96,
				miner:              100, // nothing collected
				signer.SinkAddress: 4,   // burn capped at the fee
			},
		},
	}

	t.Log("Given the need to fold fees into the balances.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling the %s case.", testID, tst.name)
			{
				f := func(t *testing.T) {
					g := genesis.Genesis{ChainID: 1, HalvingInterval: 1, CurrencyMode: true, BaseFeePerGas: 10}
					acct := accounting.New(g, nil, nil)
					sheet := accounting.NewSheet(map[string]uint64{from: tst.balance})

					content := base
					content.GasUsed = tst.gasUsed
					content.MaxFeePerGas = tst.maxFee
					content.MaxPriorityFeePerGas = tst.tip

					block := record.Block{
						Number:        1,
						Reward:        new(big.Int).SetUint64(tst.reward),
						BeneficiaryID: miner,
						BaseFeePerGas: g.BaseFeePerGas,
						Content:       []record.Content{content},
					}

					if err := acct.ApplyBlock(sheet, block); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to apply the block: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to apply the block.", success, testID)

					for address, exp := range tst.final {
						got := sheet.Balance(address)
						if got.Cmp(new(big.Int).SetUint64(exp)) != 0 {
							t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, got)
							t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, exp)
							t.Errorf("\t%s\tTest %d:\tShould have the right balance for %s.", failed, testID, address)
							continue
						}
						t.Logf("\t%s\tTest %d:\tShould have the right balance for %s.", success, testID, address)
					}
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_Transfers(t *testing.T) {
	from, base := senderAddress(t)

	g := genesis.Genesis{ChainID: 1, HalvingInterval: 1, CurrencyMode: true, BaseFeePerGas: 10}
	acct := accounting.New(g, nil, nil)
	sheet := accounting.NewSheet(map[string]uint64{from: 1000})

	content := base
	content.GasUsed = 5
	content.MaxFeePerGas = 11
	content.MaxPriorityFeePerGas = 2
	content.Transfers = []record.Transfer{{From: from, To: other, Amount: big.NewInt(200)}}

	block := record.Block{
		Number:        1,
		Reward:        big.NewInt(0),
		BeneficiaryID: miner,
		BaseFeePerGas: g.BaseFeePerGas,
		Content:       []record.Content{content},
	}

	if err := acct.ApplyBlock(sheet, block); err != nil {
		t.Fatalf("Should be able to apply the block: %s", err)
	}

	if got := sheet.Balance(from); got.Cmp(big.NewInt(745)) != 0 {
		t.Fatalf("Should debit the fee and the transfer, got %s.", got)
	}
	if got := sheet.Balance(other); got.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("Should credit the receiver, got %s.", got)
	}
}

func Test_TransferRejections(t *testing.T) {
	from, base := senderAddress(t)

	type table struct {
		name     string
		admins   []string
		balances map[string]uint64
		transfer record.Transfer
		exp      error
	}

	tt := []table{
		{
			name:     "not authorized",
			balances: map[string]uint64{from: 1000, other: 1000},
			transfer: record.Transfer{From: other, To: miner, Amount: big.NewInt(10)},
			exp:      accounting.ErrNotAuthorized,
		},
		{
			name:     "negative amount",
			balances: map[string]uint64{from: 1000},
			transfer: record.Transfer{From: from, To: other, Amount: big.NewInt(-1)},
			exp:      accounting.ErrNegativeAmount,
		},
		{
			name:     "nil amount",
			balances: map[string]uint64{from: 1000},
			transfer: record.Transfer{From: from, To: other},
			exp:      accounting.ErrNegativeAmount,
		},
		{
			name:     "insufficient source",
			balances: map[string]uint64{from: 1000},
			transfer: record.Transfer{From: from, To: other, Amount: big.NewInt(5000)},
			exp:      accounting.ErrInsufficientBalance,
		},
		{
			name:     "bad destination",
			balances: map[string]uint64{from: 1000},
			transfer: record.Transfer{From: from, To: "not an address", Amount: big.NewInt(10)},
			exp:      signer.ErrInvalidAddress,
		},
	}

	t.Log("Given the need to reject invalid transfers before balances move.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling the %s case.", testID, tst.name)
			{
				f := func(t *testing.T) {
					g := genesis.Genesis{ChainID: 1, HalvingInterval: 1, CurrencyMode: true, BaseFeePerGas: 10, Admins: tst.admins}
					acct := accounting.New(g, nil, nil)
					sheet := accounting.NewSheet(tst.balances)

					content := base
					content.GasUsed = 5
					content.MaxFeePerGas = 11
					content.Transfers = []record.Transfer{tst.transfer}

					block := record.Block{
						Number:        1,
						Reward:        big.NewInt(0),
						BaseFeePerGas: g.BaseFeePerGas,
						Content:       []record.Content{content},
					}

					err := acct.ApplyBlock(sheet, block)
					if !errors.Is(err, tst.exp) {
						t.Fatalf("\t%s\tTest %d:\tShould get error %v, got %v.", failed, testID, tst.exp, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get error %v.", success, testID, tst.exp)

					// Nothing from the rejected block may have moved.
					for address, exp := range tst.balances {
						if got := sheet.Balance(address); got.Cmp(new(big.Int).SetUint64(exp)) != 0 {
							t.Errorf("\t%s\tTest %d:\tShould leave %s untouched, got %s.", failed, testID, address, got)
							continue
						}
						t.Logf("\t%s\tTest %d:\tShould leave %s untouched.", success, testID, address)
					}
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_AdminTransfer(t *testing.T) {
	from, base := senderAddress(t)

	g := genesis.Genesis{
		ChainID:         1,
		HalvingInterval: 1,
		CurrencyMode:    true,
		BaseFeePerGas:   10,
		Admins:          []string{from},
	}
	acct := accounting.New(g, nil, nil)
	sheet := accounting.NewSheet(map[string]uint64{from: 1000, other: 500})

	content := base
	content.GasUsed = 5
	content.MaxFeePerGas = 11
	content.Transfers = []record.Transfer{{From: other, To: miner, Amount: big.NewInt(100)}}

	block := record.Block{
		Number:        1,
		Reward:        big.NewInt(0),
		BaseFeePerGas: g.BaseFeePerGas,
		Content:       []record.Content{content},
	}

	if err := acct.ApplyBlock(sheet, block); err != nil {
		t.Fatalf("Should let an admin move funds of another address: %s", err)
	}

	if got := sheet.Balance(other); got.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("Should debit the source address, got %s.", got)
	}
	if got := sheet.Balance(miner); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("Should credit the destination, got %s.", got)
	}
}

func Test_GenesisAndModes(t *testing.T) {
	from, base := senderAddress(t)

	g := genesis.Genesis{ChainID: 1, HalvingInterval: 1, CurrencyMode: true, BaseFeePerGas: 10}
	acct := accounting.New(g, nil, nil)
	sheet := accounting.NewSheet(map[string]uint64{from: 100})

	// The genesis block carries no economy no matter what it holds.
	if err := acct.ApplyBlock(sheet, record.Genesis()); err != nil {
		t.Fatalf("Should apply the genesis block as a no-op: %s", err)
	}
	if got := sheet.Balance(from); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("Should leave the balances untouched, got %s.", got)
	}

	// With currency mode off nothing moves either.
	g.CurrencyMode = false
	acct = accounting.New(g, nil, nil)

	content := base
	content.GasUsed = 5
	content.MaxFeePerGas = 11

	block := record.Block{
		Number:        1,
		Reward:        big.NewInt(50),
		BeneficiaryID: miner,
		BaseFeePerGas: g.BaseFeePerGas,
		Content:       []record.Content{content},
	}

	if err := acct.ApplyBlock(sheet, block); err != nil {
		t.Fatalf("Should apply the block without an economy: %s", err)
	}
	if got := sheet.Balance(miner); got.Sign() != 0 {
		t.Fatalf("Should not mint with currency mode off, got %s.", got)
	}
}

func Test_PayloadMode(t *testing.T) {
	_, base := senderAddress(t)

	var seen []string
	onPayload := func(blockNumber uint64, payload string) {
		seen = append(seen, payload)
	}

	g := genesis.Genesis{ChainID: 1, HalvingInterval: 1, PayloadMode: true}
	acct := accounting.New(g, nil, onPayload)
	sheet := accounting.NewSheet(nil)

	content := base
	content.Payload = "a note for the record"

	block := record.Block{
		Number:        1,
		Reward:        big.NewInt(0),
		BaseFeePerGas: 10,
		Content:       []record.Content{content, {PublicKey: signer.SinkAddress, Scheme: signer.SchemeGeneric}},
	}

	if err := acct.ApplyBlock(sheet, block); err != nil {
		t.Fatalf("Should apply the block: %s", err)
	}

	if len(seen) != 1 || seen[0] != "a note for the record" {
		t.Fatalf("Should surface exactly the non-empty payloads, got %v.", seen)
	}
}

func Test_SinkPayout(t *testing.T) {
	from, base := senderAddress(t)

	g := genesis.Genesis{ChainID: 1, HalvingInterval: 1, CurrencyMode: true, BaseFeePerGas: 10}
	acct := accounting.New(g, nil, nil)
	sheet := accounting.NewSheet(map[string]uint64{from: 100})

	content := base
	content.GasUsed = 5
	content.MaxFeePerGas = 11
	content.MaxPriorityFeePerGas = 2

	// No beneficiary: the reward and the collected fees land on the sink
	// together with the burn.
	block := record.Block{
		Number:        1,
		Reward:        big.NewInt(100),
		BaseFeePerGas: g.BaseFeePerGas,
		Content:       []record.Content{content},
	}

	if err := acct.ApplyBlock(sheet, block); err != nil {
		t.Fatalf("Should be able to apply the block: %s", err)
	}

	if got := sheet.Balance(signer.SinkAddress); got.Cmp(big.NewInt(155)) != 0 {
		t.Fatalf("Should credit the sink with reward, collected and burned, got %s.", got)
	}
}
