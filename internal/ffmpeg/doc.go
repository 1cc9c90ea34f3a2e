// Package ffmpeg reads source metadata and decodes single frames by shelling
// out to ffprobe and ffmpeg.
//
// Prober implements thumbnail.Prober. Video sources are probed with
//
//	ffprobe -v quiet -print_format json -show_format -show_streams <path>
//
// and the first video stream supplies the picture size. Display rotation from
// stream tags or side data swaps width and height so the reported size matches
// the frames ffmpeg emits. Still images are probed with Go's image decoders
// and report a duration of 0.
//
// Decoder implements thumbnail.Decoder. Each Seek starts its own ffmpeg
// process with an input seek and pipes exactly one PNG frame back, so
// concurrent seeks never share decoder state:
//
//	ffmpeg -ss <t> -i <path> -frames:v 1 -f image2pipe -vcodec png -
//
// Binary locations come from FFMPEG_PATH and FFPROBE_PATH, defaulting to a
// PATH lookup.
package ffmpeg
