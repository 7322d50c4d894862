package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// ModelState tracks the sequence model lifecycle.
type ModelState string

const (
	StateUnloaded    ModelState = "UNLOADED"
	StateBuilt       ModelState = "BUILT"
	StateLoaded      ModelState = "LOADED"
	StateTrained     ModelState = "TRAINED"
	StateUnavailable ModelState = "UNAVAILABLE"
)

// DefaultLookback is the sequence length: 24 hourly records per input window.
const DefaultLookback = 24

const (
	dropoutRate  = 0.2
	learningRate = 5e-3
	trainSplit   = 0.8
)

// recurrent stack topology, followed by a 16-unit dense head and scalar output
var hiddenUnits = [3]int{128, 64, 32}

// ErrModelNotReady is returned by Predict when the model has not been trained
// or loaded from a snapshot.
var ErrModelNotReady = errors.New("model: predict requires a trained or loaded model")

// TrainHistory records per-epoch training metrics.
type TrainHistory struct {
	Loss    []float64 `json:"loss"`
	MAE     []float64 `json:"mae"`
	ValLoss []float64 `json:"val_loss"`
	ValMAE  []float64 `json:"val_mae"`
	MAPE    float64   `json:"mape"`
}

// SequenceModel is a stacked recurrent demand predictor. The three tanh
// recurrent layers are initialized with scaled random weights and held fixed;
// training fits the dense head and scalar readout by mini-batch SGD on MSE.
// The fitted scaler travels with the weights so inference reuses the exact
// training-time feature scale.
type SequenceModel struct {
	state  ModelState
	seqLen int

	layers [3]*rnnLayer

	headW *mat.Dense    // 16 × last hidden
	headB *mat.VecDense // 16
	outW  *mat.VecDense // 16
	outB  float64

	// target standardization, captured at train time
	targetMean float64
	targetStd  float64

	scaler *MinMaxScaler
	rng    *rand.Rand
}

type rnnLayer struct {
	wx *mat.Dense    // units × inputs
	wh *mat.Dense    // units × units
	b  *mat.VecDense // units
}

// NewSequenceModel returns a model in the UNLOADED state.
func NewSequenceModel(seed uint64) *SequenceModel {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &SequenceModel{
		state:  StateUnloaded,
		scaler: NewMinMaxScaler(),
		rng:    rand.New(rand.NewPCG(seed, seed^0xa5a5a5a5deadbeef)),
	}
}

// State reports the current lifecycle state.
func (m *SequenceModel) State() ModelState { return m.state }

// Scaler exposes the model's feature scaler.
func (m *SequenceModel) Scaler() *MinMaxScaler { return m.scaler }

// Build constructs the network topology for the given input shape. Invalid
// shapes leave the model UNAVAILABLE, which routes prediction to the
// rule-based fallback.
func (m *SequenceModel) Build(seqLen, numFeatures int) error {
	if seqLen <= 0 || numFeatures <= 0 {
		m.state = StateUnavailable
		return fmt.Errorf("model: invalid input shape (%d, %d)", seqLen, numFeatures)
	}

	m.seqLen = seqLen
	in := numFeatures
	for i, units := range hiddenUnits {
		m.layers[i] = &rnnLayer{
			wx: m.randDense(units, in),
			wh: m.randDense(units, units),
			b:  mat.NewVecDense(units, nil),
		}
		in = units
	}

	last := hiddenUnits[len(hiddenUnits)-1]
	m.headW = m.randDense(16, last)
	m.headB = mat.NewVecDense(16, nil)
	m.outW = mat.NewVecDense(16, nil)
	for i := 0; i < 16; i++ {
		m.outW.SetVec(i, m.rng.NormFloat64()*0.1)
	}
	m.outB = 0
	m.targetMean, m.targetStd = 0, 1

	m.state = StateBuilt
	log.Printf("sequence model built: lookback=%d features=%d units=%v", seqLen, numFeatures, hiddenUnits)
	return nil
}

// randDense draws Glorot-style scaled gaussian weights.
func (m *SequenceModel) randDense(rows, cols int) *mat.Dense {
	scale := math.Sqrt(2.0 / float64(rows+cols))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = m.rng.NormFloat64() * scale
	}
	return mat.NewDense(rows, cols, data)
}

// Train fits the readout on sliding windows over rows: each input is a
// lookback-length run of scaled feature vectors, the target is the demand of
// the record immediately after the window. The split is chronological, 80/20
// with no shuffling, so later data never leaks into training. On success the
// weights and scaler are persisted to path (atomic replace); any failure is
// returned to the caller, never swallowed.
func (m *SequenceModel) Train(ctx context.Context, rows []Observation, epochs, batchSize int, path string) (*TrainHistory, error) {
	if epochs <= 0 {
		epochs = 50
	}
	if batchSize <= 0 {
		batchSize = 32
	}
	if len(rows) <= DefaultLookback+1 {
		return nil, fmt.Errorf("model: need more than %d rows to train, got %d", DefaultLookback+1, len(rows))
	}

	scaled := m.scaler.FitTransform(rows)

	windows, targets := buildSequences(scaled, rows, DefaultLookback)
	if m.state == StateUnloaded || m.state == StateUnavailable {
		if err := m.Build(DefaultLookback, NumFeatures); err != nil {
			return nil, err
		}
	}

	splitIdx := int(float64(len(windows)) * trainSplit)
	if splitIdx < 1 {
		splitIdx = 1
	}
	trainW, valW := windows[:splitIdx], windows[splitIdx:]
	trainT, valT := targets[:splitIdx], targets[splitIdx:]

	// standardization statistics come from the training split only, so the
	// held-out tail never influences the fitted normalization
	m.standardizeTargets(trainT)

	history := &TrainHistory{}
	for epoch := 0; epoch < epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("model: training cancelled at epoch %d: %w", epoch, err)
		}

		for start := 0; start < len(trainW); start += batchSize {
			end := start + batchSize
			if end > len(trainW) {
				end = len(trainW)
			}
			m.sgdStep(trainW[start:end], trainT[start:end])
		}

		loss, mae, _ := m.evaluate(trainW, trainT)
		history.Loss = append(history.Loss, loss)
		history.MAE = append(history.MAE, mae)
		if len(valW) > 0 {
			vLoss, vMAE, _ := m.evaluate(valW, valT)
			history.ValLoss = append(history.ValLoss, vLoss)
			history.ValMAE = append(history.ValMAE, vMAE)
		}
	}
	_, _, history.MAPE = m.evaluate(trainW, trainT)

	m.state = StateTrained
	if path != "" {
		if err := m.Save(path); err != nil {
			return nil, fmt.Errorf("model: trained but snapshot save failed: %w", err)
		}
	}
	log.Printf("sequence model trained: epochs=%d samples=%d final_loss=%.4f final_mae=%.4f",
		epochs, len(trainW), history.Loss[len(history.Loss)-1], history.MAE[len(history.MAE)-1])
	return history, nil
}

// buildSequences slides a lookback window over scaled rows; the target for
// each window is the raw demand of the following record.
func buildSequences(scaled [][NumFeatures]float64, rows []Observation, lookback int) ([][][NumFeatures]float64, []float64) {
	n := len(scaled) - lookback
	windows := make([][][NumFeatures]float64, 0, n)
	targets := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		windows = append(windows, scaled[i:i+lookback])
		targets = append(targets, rows[i+lookback].Demand)
	}
	return windows, targets
}

func (m *SequenceModel) standardizeTargets(targets []float64) {
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	m.targetMean = sum / float64(len(targets))
	varSum := 0.0
	for _, t := range targets {
		d := t - m.targetMean
		varSum += d * d
	}
	m.targetStd = math.Sqrt(varSum / float64(len(targets)))
	if m.targetStd == 0 {
		m.targetStd = 1
	}
}

// sgdStep applies one averaged gradient update of the head and readout over
// a mini-batch, with per-layer inverted dropout in the forward pass.
func (m *SequenceModel) sgdStep(windows [][][NumFeatures]float64, targets []float64) {
	last := hiddenUnits[len(hiddenUnits)-1]
	gradHeadW := mat.NewDense(16, last, nil)
	gradHeadB := mat.NewVecDense(16, nil)
	gradOutW := mat.NewVecDense(16, nil)
	gradOutB := 0.0

	for i, w := range windows {
		h := m.forwardStackTrain(w)

		z, zPre := m.forwardHead(h)
		pred := mat.Dot(m.outW, z) + m.outB
		target := (targets[i] - m.targetMean) / m.targetStd
		dy := pred - target

		// readout gradients
		for j := 0; j < 16; j++ {
			gradOutW.SetVec(j, gradOutW.AtVec(j)+dy*z.AtVec(j))
		}
		gradOutB += dy

		// dense head gradients through the ReLU
		for j := 0; j < 16; j++ {
			if zPre.AtVec(j) <= 0 {
				continue
			}
			dz := dy * m.outW.AtVec(j)
			gradHeadB.SetVec(j, gradHeadB.AtVec(j)+dz)
			for k := 0; k < last; k++ {
				gradHeadW.Set(j, k, gradHeadW.At(j, k)+dz*h.AtVec(k))
			}
		}
	}

	n := float64(len(windows))
	step := learningRate / n
	for j := 0; j < 16; j++ {
		m.outW.SetVec(j, m.outW.AtVec(j)-step*gradOutW.AtVec(j))
		m.headB.SetVec(j, m.headB.AtVec(j)-step*gradHeadB.AtVec(j))
		for k := 0; k < last; k++ {
			m.headW.Set(j, k, m.headW.At(j, k)-step*gradHeadW.At(j, k))
		}
	}
	m.outB -= step * gradOutB
}

// dropoutMask draws one inverted-dropout scale vector: dropped units are 0,
// survivors are scaled by 1/keep so activations keep their expected value.
func (m *SequenceModel) dropoutMask(units int) []float64 {
	keep := 1 - dropoutRate
	mask := make([]float64, units)
	for i := range mask {
		if m.rng.Float64() >= dropoutRate {
			mask[i] = 1 / keep
		}
	}
	return mask
}

// forwardStackTrain runs the recurrent layers with 20% dropout after each
// layer's output. Masks are sampled once per training sample and held fixed
// across timesteps; the recurrent state itself is carried undropped.
func (m *SequenceModel) forwardStackTrain(window [][NumFeatures]float64) *mat.VecDense {
	var masks [3][]float64
	states := [3]*mat.VecDense{}
	for i, units := range hiddenUnits {
		masks[i] = m.dropoutMask(units)
		states[i] = mat.NewVecDense(units, nil)
	}

	var out *mat.VecDense
	for _, features := range window {
		x := mat.NewVecDense(NumFeatures, nil)
		for f := 0; f < NumFeatures; f++ {
			x.SetVec(f, features[f])
		}
		input := x
		for i, layer := range m.layers {
			states[i] = layer.step(input, states[i])
			dropped := mat.NewVecDense(states[i].Len(), nil)
			for j := 0; j < dropped.Len(); j++ {
				dropped.SetVec(j, states[i].AtVec(j)*masks[i][j])
			}
			input = dropped
		}
		out = input
	}
	return out
}

// forwardStack runs the recurrent layers over a window and returns the final
// hidden state of the last layer.
func (m *SequenceModel) forwardStack(window [][NumFeatures]float64) *mat.VecDense {
	states := [3]*mat.VecDense{}
	for i, units := range hiddenUnits {
		states[i] = mat.NewVecDense(units, nil)
	}
	for _, features := range window {
		x := mat.NewVecDense(NumFeatures, nil)
		for f := 0; f < NumFeatures; f++ {
			x.SetVec(f, features[f])
		}
		input := x
		for i, layer := range m.layers {
			states[i] = layer.step(input, states[i])
			input = states[i]
		}
	}
	return states[len(states)-1]
}

func (l *rnnLayer) step(x, h *mat.VecDense) *mat.VecDense {
	units := l.b.Len()
	out := mat.NewVecDense(units, nil)
	out.MulVec(l.wx, x)
	rec := mat.NewVecDense(units, nil)
	rec.MulVec(l.wh, h)
	out.AddVec(out, rec)
	out.AddVec(out, l.b)
	for i := 0; i < units; i++ {
		out.SetVec(i, math.Tanh(out.AtVec(i)))
	}
	return out
}

// forwardHead returns the ReLU activations and their pre-activations.
func (m *SequenceModel) forwardHead(h *mat.VecDense) (z, zPre *mat.VecDense) {
	zPre = mat.NewVecDense(16, nil)
	zPre.MulVec(m.headW, h)
	zPre.AddVec(zPre, m.headB)
	z = mat.NewVecDense(16, nil)
	for i := 0; i < 16; i++ {
		if v := zPre.AtVec(i); v > 0 {
			z.SetVec(i, v)
		}
	}
	return z, zPre
}

// forwardOnce runs a full inference pass over one window, returning demand in
// raw units.
func (m *SequenceModel) forwardOnce(window [][NumFeatures]float64) float64 {
	h := m.forwardStack(window)
	z, _ := m.forwardHead(h)
	pred := mat.Dot(m.outW, z) + m.outB
	return pred*m.targetStd + m.targetMean
}

// evaluate computes MSE, MAE and MAPE over a sample set in raw demand units.
func (m *SequenceModel) evaluate(windows [][][NumFeatures]float64, targets []float64) (mse, mae, mape float64) {
	if len(windows) == 0 {
		return 0, 0, 0
	}
	var mapeN int
	for i, w := range windows {
		pred := m.forwardOnce(w)
		diff := pred - targets[i]
		mse += diff * diff
		mae += math.Abs(diff)
		if targets[i] != 0 {
			mape += math.Abs(diff/targets[i]) * 100
			mapeN++
		}
	}
	n := float64(len(windows))
	mse /= n
	mae /= n
	if mapeN > 0 {
		mape /= float64(mapeN)
	}
	return mse, mae, mape
}

// previousDemandIdx is the feature column rewritten during rollout.
const previousDemandIdx = 8

// Predict performs an autoregressive rollout: the most recent lookback-length
// window produces one step ahead, that prediction is folded back into an
// owned copy of the window (oldest record dropped, previous_demand slot
// overwritten with the scaled prediction), and the process repeats for
// hoursAhead steps. Requires a TRAINED or LOADED model.
func (m *SequenceModel) Predict(ctx context.Context, recent []Observation, hoursAhead int) ([]float64, error) {
	if m.state != StateTrained && m.state != StateLoaded {
		return nil, ErrModelNotReady
	}
	if hoursAhead <= 0 {
		return nil, fmt.Errorf("model: hoursAhead must be positive, got %d", hoursAhead)
	}
	if len(recent) < m.seqLen {
		return nil, fmt.Errorf("model: need at least %d recent observations, got %d", m.seqLen, len(recent))
	}

	tail, err := m.scaler.Transform(recent[len(recent)-m.seqLen:])
	if err != nil {
		return nil, err
	}

	// owned rollout buffer, no aliasing with caller data or prior steps
	window := make([][NumFeatures]float64, m.seqLen)
	copy(window, tail)

	out := make([]float64, 0, hoursAhead)
	for step := 0; step < hoursAhead; step++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("model: rollout cancelled at step %d: %w", step, err)
		}

		pred := m.forwardOnce(window)
		if pred < DemandFloor {
			pred = DemandFloor
		}
		out = append(out, pred)

		scaledPred, err := m.scaler.ScaleValue(previousDemandIdx, pred)
		if err != nil {
			return nil, err
		}
		next := window[len(window)-1]
		next[previousDemandIdx] = scaledPred
		window = append(window[1:], next)
	}
	return out, nil
}

// modelSnapshot is the durable on-disk form of a trained model.
type modelSnapshot struct {
	SeqLen     int             `json:"seq_len"`
	Layers     []layerSnapshot `json:"layers"`
	HeadW      matrixSnapshot  `json:"head_w"`
	HeadB      []float64       `json:"head_b"`
	OutW       []float64       `json:"out_w"`
	OutB       float64         `json:"out_b"`
	TargetMean float64         `json:"target_mean"`
	TargetStd  float64         `json:"target_std"`
	Scaler     *MinMaxScaler   `json:"scaler"`
}

type layerSnapshot struct {
	Wx matrixSnapshot `json:"wx"`
	Wh matrixSnapshot `json:"wh"`
	B  []float64      `json:"b"`
}

type matrixSnapshot struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

func snapshotMatrix(d *mat.Dense) matrixSnapshot {
	r, c := d.Dims()
	raw := d.RawMatrix()
	data := make([]float64, len(raw.Data))
	copy(data, raw.Data)
	return matrixSnapshot{Rows: r, Cols: c, Data: data}
}

func (ms matrixSnapshot) dense() *mat.Dense {
	return mat.NewDense(ms.Rows, ms.Cols, ms.Data)
}

// Save writes weights and scaler to path, replacing prior content atomically
// via a temp file and rename.
func (m *SequenceModel) Save(path string) error {
	snap := modelSnapshot{
		SeqLen:     m.seqLen,
		HeadW:      snapshotMatrix(m.headW),
		HeadB:      vecData(m.headB),
		OutW:       vecData(m.outW),
		OutB:       m.outB,
		TargetMean: m.targetMean,
		TargetStd:  m.targetStd,
		Scaler:     m.scaler,
	}
	for _, l := range m.layers {
		snap.Layers = append(snap.Layers, layerSnapshot{
			Wx: snapshotMatrix(l.wx),
			Wh: snapshotMatrix(l.wh),
			B:  vecData(l.b),
		})
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("model: encode snapshot: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("model: create snapshot dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("model: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("model: replace snapshot: %w", err)
	}
	return nil
}

// Load restores a snapshot from durable storage. A missing or corrupt file
// leaves the model UNAVAILABLE so callers fall through to the rule-based
// predictor.
func (m *SequenceModel) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		m.state = StateUnavailable
		return fmt.Errorf("model: read snapshot: %w", err)
	}
	var snap modelSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		m.state = StateUnavailable
		return fmt.Errorf("model: decode snapshot: %w", err)
	}
	if snap.SeqLen <= 0 || len(snap.Layers) != len(hiddenUnits) || snap.Scaler == nil {
		m.state = StateUnavailable
		return fmt.Errorf("model: snapshot %s is malformed", path)
	}

	m.seqLen = snap.SeqLen
	for i, ls := range snap.Layers {
		m.layers[i] = &rnnLayer{
			wx: ls.Wx.dense(),
			wh: ls.Wh.dense(),
			b:  mat.NewVecDense(len(ls.B), ls.B),
		}
	}
	m.headW = snap.HeadW.dense()
	m.headB = mat.NewVecDense(len(snap.HeadB), snap.HeadB)
	m.outW = mat.NewVecDense(len(snap.OutW), snap.OutW)
	m.outB = snap.OutB
	m.targetMean = snap.TargetMean
	m.targetStd = snap.TargetStd
	m.scaler = snap.Scaler

	m.state = StateLoaded
	log.Printf("sequence model loaded from %s (lookback=%d)", path, m.seqLen)
	return nil
}

func vecData(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
