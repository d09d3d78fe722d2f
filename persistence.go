package ecsim

// IWriter is the primitive write surface a Profile exposes per §6. The
// core defines no byte format; it only needs to be able to write these
// primitive kinds in some order a matching IReader can read back.
type IWriter interface {
	WriteI32(int32) error
	WriteI64(int64) error
	WriteU32(uint32) error
	WriteU64(uint64) error
	WriteF32(float32) error
	WriteF64(float64) error
	WriteBool(bool) error
	WriteString(string) error
	WriteBytes([]byte) error
}

// IReader is the read-side counterpart of IWriter.
type IReader interface {
	ReadI32() (int32, error)
	ReadI64() (int64, error)
	ReadU32() (uint32, error)
	ReadU64() (uint64, error)
	ReadF32() (float32, error)
	ReadF64() (float64, error)
	ReadBool() (bool, error)
	ReadString() (string, error)
	ReadBytes() ([]byte, error)
}

// Profile is the external collaborator the core asks for named
// writer/reader handles at a persistence boundary; it owns the file
// format and storage medium entirely (§6 "the core does not define the
// file format").
type Profile interface {
	Writer(name string) (IWriter, error)
	Reader(name string) (IReader, error)
}

// SaveWorld fires the WorldSave/WorldSaved boundary events and asks
// every registered StatefulSystem to persist itself through a
// profile-provided writer named after the system.
func SaveWorld(w *World, profile Profile) error {
	w.events.Publish(WorldSave, nil)
	defer w.events.Publish(WorldSaved, nil)

	for _, name := range w.scheduler.order {
		w.scheduler.mu.Lock()
		e := w.scheduler.entries[name]
		w.scheduler.mu.Unlock()
		if e == nil {
			continue
		}
		stateful, ok := e.sys.(StatefulSystem)
		if !ok {
			continue
		}
		writer, err := profile.Writer(name)
		if err != nil {
			return err
		}
		if err := stateful.SaveState(writer); err != nil {
			return err
		}
	}
	return nil
}

// LoadWorld is SaveWorld's inverse: fires WorldLoad/WorldLoaded and
// asks every registered StatefulSystem to restore itself.
func LoadWorld(w *World, profile Profile) error {
	w.events.Publish(WorldLoad, nil)
	defer w.events.Publish(WorldLoaded, nil)

	for _, name := range w.scheduler.order {
		w.scheduler.mu.Lock()
		e := w.scheduler.entries[name]
		w.scheduler.mu.Unlock()
		if e == nil {
			continue
		}
		stateful, ok := e.sys.(StatefulSystem)
		if !ok {
			continue
		}
		reader, err := profile.Reader(name)
		if err != nil {
			return err
		}
		if err := stateful.LoadState(reader); err != nil {
			return err
		}
	}
	return nil
}
