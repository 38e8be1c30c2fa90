// Package loader resolves operator weight names to stored tensor data.
//
// Every loader implements op.Loader: DataType reports the stored element
// type of a name (or that the name is unknown), and Load fills an already
// allocated tensor with the bytes stored under the tensor's name.
//
// Implementations:
//   - Memory: name -> (dtype, bytes) table, for tests and programmatic weights
//   - SafeTensorsReader: Hugging Face SafeTensors files
//   - GGUFReader: llama.cpp GGUF v3 files, including Q4_0/Q8_0 blocks
//   - Empty: knows no names; every operator takes the zero-filled path
//
// Example:
//
//	model, err := loader.Open("path/to/model.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer model.Close()
//
//	if err := conv.Load(model); err != nil {
//	    log.Fatal(err)
//	}
//
// Stored data is never converted: the loader's element type is the tensor's
// element type. Load fails with op.ErrLoad when the stored element count or
// byte size does not match the tensor.
package loader
